// Package area manages the logical regions of the home that paired
// clients are scoped to. Areas are flat: no nesting, no site hierarchy.
package area
