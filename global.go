package main

import (
	"fmt"
)

// BuildDate: Binary file compilation time
// BuildVersion: Binary compiled GIT version
var (
	BuildDate    string
	BuildVersion string
)

var banner string

func init() {
	banner = `  ____        _____         ___  ___       _____ __                   __
  /  _/______ / __(_)______ / _ \/ _ )____/ ___// /  ___  ____ ___/ /
 _/ // __/ -_) _// / __/ -_) // / _  /___/ /__ / _ \/ _ \/ __// _  / 
/___/\__/\__/_/ /_/_/  \__/____/____/    \___//_//_/\___/_/   \_,_/  
`
}

func printBanner() {
	fmt.Println(banner)
	if BuildVersion != "" {
		fmt.Printf("version %s built %s\n", BuildVersion, BuildDate)
	}
}
