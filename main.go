package main

import "mspro-labs/weekly-shop/cmd"

func main() {
	cmd.Execute()
}
