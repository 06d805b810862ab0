package main

import "github.com/crystaldolphin/blockhand/cmd"

func main() {
	cmd.Execute()
}
