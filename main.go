package main

import "github.com/dooh-labs/attentiond/cmd"

func main() {
	cmd.Execute()
}
