// Package preflight provides readiness checks for the filesystem paths and
// staging state an import run depends on.
//
// These checks run in two contexts:
//   - The workflow runner calls RunAll before classification starts. If any
//     check fails, the run refuses to start rather than fail file by file.
//   - The CLI "shutterbox status" command uses individual check functions
//     to display environment health.
package preflight
