package main

import "github.com/cppla/blogapi/cmd"

func main() {
	cmd.Execute()
}
