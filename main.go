package main

import "github.com/frahmantamala/liquidation-portal/cmd"

func main() {
	cmd.Execute()
}
