// Package fileutil holds small filesystem helpers, chiefly atomic
// temp-file-and-rename writes used for every output document.
package fileutil
