/*
Copyright © 2026 Partydeck <dev@partydeck.app>
*/

package main

import (
	"log"

	"github.com/spf13/cobra"
)

const (
	releaseVersion = "0.2.1"
)

func main() {
	log.SetFlags(0)
	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}
