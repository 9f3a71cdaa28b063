// cmd/forcepmf-ineff/main.go
package main

import (
	"forcepmf/internal/appshell"
	"forcepmf/internal/ineffapp"
)

func main() { appshell.Main(ineffapp.RunContext) }
