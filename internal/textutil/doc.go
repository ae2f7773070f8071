// Package textutil provides small text-processing helpers shared across the
// module: filesystem-safe filename sanitization and a generic ternary
// conditional.
package textutil
