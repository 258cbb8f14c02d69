package main

import "github.com/Gustavo032/leankeep-api-guard/cmd"

// Version can be set during build with -ldflags
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
