// Package process isolates the platform-specific parts of running the LaTeX
// compiler: starting it in its own process group and killing that group.
//
// pdflatex with -shell-escape may start helpers (epstopdf, inkscape,
// gnuplot). Killing only the direct child would leave them running after a
// timeout, so the whole group is terminated.
package process
