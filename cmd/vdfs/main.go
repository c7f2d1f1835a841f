package main

import "github.com/ZanzyTHEbar/virtual-docfs/cmd/vdfs/cmd"

func main() {
	cmd.Execute()
}
