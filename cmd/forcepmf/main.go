// cmd/forcepmf/main.go
package main

import (
	"forcepmf/internal/appshell"
	"forcepmf/internal/pmfapp"
)

func main() { appshell.Main(pmfapp.RunContext) }
