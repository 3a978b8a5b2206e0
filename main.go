package main

import "github.com/shouni/go-web-reader/cmd"

func main() {
	cmd.Execute()
}
