package main

import "github.com/redirtxt/redirtxt/cmd"

func main() {
	cmd.Execute()
}
