package main

import "github.com/ziadkadry99/podcast-rag/cmd"

func main() {
	cmd.Execute()
}
