package main

import "github.com/emmanuelnurit/cawl-gateway/cmd"

func main() {
	cmd.Execute()
}
