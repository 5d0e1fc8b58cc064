// Command docflow runs pipeline definitions.
//
//	docflow run                     # default pipelines
//	docflow run Pages Feeds         # named pipelines and their dependencies
//	docflow plan                    # print the parallel phase levels
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
