// Package sysproc sets platform specific attributes on child processes.
package sysproc
