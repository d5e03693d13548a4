// Package textutil sanitizes video references into portable file names.
package textutil
