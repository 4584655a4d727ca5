package main

import "membership-portal/cmd"

func main() {
	cmd.Execute()
}
