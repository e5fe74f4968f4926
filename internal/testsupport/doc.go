// Package testsupport builds configs and history stores for package tests.
package testsupport
