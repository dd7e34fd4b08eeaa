package tex2pdf_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"text/template"

	"github.com/icef/go-tex2pdf"
)

// Example compiles a document with the default pdflatex configuration.
// Requires a TeX installation, so it has no verified output.
func Example() {
	gen, err := tex2pdf.NewGenerator()
	if err != nil {
		log.Fatal(err)
	}

	doc, err := gen.Generate(context.Background(), `\documentclass{article}
\begin{document}
Hello, world.
\end{document}`, nil)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%d page(s), %d bytes\n", doc.PageCount(), doc.Size())
}

// ExampleGenerator_Escape shows the default escaping of user input.
func ExampleGenerator_Escape() {
	gen, err := tex2pdf.NewGenerator()
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(gen.Escape("100% & $5 for item_#3"))
	fmt.Println(gen.Escape(`C:\Users\~me`))
	// Output:
	// 100\% \& \$5 for item\_\#3
	// C:\textbackslash{}Users\textbackslash{}\textasciitilde{}me
}

// ExampleGenerator_FuncMap renders a template with escaped fields.
func ExampleGenerator_FuncMap() {
	gen, err := tex2pdf.NewGenerator()
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	tmpl := template.Must(template.New("letter").Funcs(gen.FuncMap()).Parse(
		`\textbf{ {{- latex .Customer -}} } owes {{ latex .Amount }}`))

	_ = tmpl.Execute(os.Stdout, map[string]string{
		"Customer": "Smith & Sons",
		"Amount":   "$1,200",
	})
	fmt.Println()
	// Output: \textbf{Smith \& Sons} owes \$1,200
}

// ExampleBuild shows the caller-managed lifecycle, which keeps the log
// on disk until Cleanup.
func ExampleBuild() {
	gen, err := tex2pdf.NewGenerator(tex2pdf.WithBuildConfig(tex2pdf.BuildConfig{
		ParseTwice: true, // resolve \ref and \tableofcontents
	}))
	if err != nil {
		log.Fatal(err)
	}

	b := gen.NewBuild(`\documentclass{article}\begin{document}\tableofcontents\section{One}\end{document}`, nil)
	defer b.Cleanup()

	doc, err := b.Generate(context.Background())
	var be *tex2pdf.BuildError
	switch {
	case errors.As(err, &be):
		fmt.Println("see", be.LogPath)
	case err != nil:
		log.Fatal(err)
	default:
		fmt.Println(doc.PageCount())
	}
}
