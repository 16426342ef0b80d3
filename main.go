package main

import "github.com/nyambati/sparkrun/cmd/sparkrun"

func main() {
	sparkrun.Execute()
}
