package main

import "github.com/centre-for-microbiome-research/hpc-scripts/cmd"

func main() {
	cmd.Execute()
}
