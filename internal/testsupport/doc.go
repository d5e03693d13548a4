// Package testsupport holds helpers shared by package tests: a config
// builder over temp directories, a fake inference endpoint, and a static
// caption source.
package testsupport
