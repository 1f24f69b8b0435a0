/*
Example code showing how to run dead tree detection over a directory
of aerial images, each image gets its own uniquely named set of
intermediate datasets so runs cannot overwrite each other
*/
package main

import (
	"flag"
	"log"
	"time"

	"github.com/sirupsen/logrus"

	deadtrees "github.com/forestquant/go-deadtrees"
	"github.com/forestquant/go-deadtrees/opencv"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	imgDir := flag.String("d", "../data/plots/", "Directory of aerial images to process")
	maskFile := flag.String("f", "", "Optional forest mask polygon file applied to every image")
	workDir := flag.String("w", ".", "Workspace directory for intermediate datasets")
	classes := flag.Int("c", 10, "Number of classes for unsupervised classification")
	rule := flag.String("rule", "fixed", "Dead tree class selection rule [fixed|brightest|darkest]")
	quiet := flag.Bool("q", false, "Run in quiet mode, don't log pipeline progress")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	switch {
	case *debug:
		logrus.SetLevel(logrus.DebugLevel)
	case *quiet:
		logrus.SetLevel(logrus.WarnLevel)
	}

	tasks, err := deadtrees.TasksFromDir(*imgDir, *maskFile)

	if err != nil {
		log.Fatal("Error scanning image directory: ", err)
	}

	log.Printf("Found %d aerial images in %s\n", len(tasks), *imgDir)

	params := deadtrees.DefaultDetectParams()
	params.Classes = *classes

	switch *rule {
	case "fixed":
	case "brightest":
		params.Rule = deadtrees.BrightestClass()
	case "darkest":
		params.Rule = deadtrees.DarkestClass()
	default:
		log.Fatalf("Unknown class rule %q, use fixed, brightest or darkest", *rule)
	}

	eng, err := opencv.NewEngine()

	if err != nil {
		log.Fatal("Error initializing engine: ", err)
	}

	defer eng.Close()

	det, err := deadtrees.NewDetector(eng, *workDir, params)

	if err != nil {
		log.Fatal("Error creating detector: ", err)
	}

	start := time.Now()
	results := det.RunBatch(tasks)

	done := 0
	trees := 0

	for _, res := range results {
		if res.Err != nil {
			log.Printf("FAILED %s: %v\n", res.Task.Raster, res.Err)
			continue
		}

		done++
		trees += res.Result.Trees.Count()

		log.Printf("%s: %d dead tree regions, features in %s\n",
			res.Task.Raster, res.Result.Trees.Count(), res.Result.Output)
	}

	log.Printf("Processed %d of %d images in %s, %d dead tree regions in total\n",
		done, len(results), time.Since(start).Round(time.Millisecond), trees)
}
