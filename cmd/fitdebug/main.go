package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/net/html"

	"overlayfit/fit"
)

func main() {
	urlFlag := flag.String("url", "", "page to fetch and fit")
	fileFlag := flag.String("file", "", "local HTML file to fit instead of a URL")
	marker := flag.String("marker", fit.DefaultMarkerSelector, "marker selector")
	vw := flag.Int("w", 0, "viewport width")
	vh := flag.Int("h", 0, "viewport height")
	emit := flag.Bool("emit", false, "print the rewritten document instead of the report")
	flag.Parse()

	opts := fit.DefaultOptions()
	if *vw > 0 {
		opts.ViewportW = *vw
	}
	if *vh > 0 {
		opts.ViewportH = *vh
	}

	var doc *html.Node
	base := ""
	switch {
	case *urlFlag != "":
		var err error
		doc, base, err = fit.FetchDocument(*urlFlag, nil, nil)
		if err != nil {
			log.Fatal(err)
		}
	case *fileFlag != "":
		f, err := os.Open(*fileFlag)
		if err != nil {
			log.Fatal(err)
		}
		doc, err = html.Parse(f)
		f.Close()
		if err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatal("need -url or -file")
	}

	fitter, err := fit.NewFitter(*marker, nil)
	if err != nil {
		log.Fatal(err)
	}
	measurer := &fit.StaticMeasurer{Base: base, Opts: opts}

	targets := fitter.Targets(doc)
	measurements, err := measurer.Measure(doc, targets)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := fitter.Fit(doc, measurer); err != nil {
		log.Fatal(err)
	}

	if *emit {
		if err := html.Render(os.Stdout, doc); err != nil {
			log.Fatal(err)
		}
		fmt.Println()
		return
	}

	log.Printf("fit %d element(s), marker %q", len(targets), *marker)
	for i, t := range targets {
		m := measurements[i]
		fmt.Printf("node=%s class=%q parent=%vx%v padding=%s/%s\n",
			t.Data, fit.GetAttr(t, "class"), m.Width, m.Height, m.PaddingTop, m.PaddingLeft)
		fmt.Printf("  style=%q\n", fit.GetAttr(t, "style"))
	}
}
