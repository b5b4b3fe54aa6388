package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/suparena/entityscope"
	"github.com/suparena/entityscope/naming"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
	tableFlag   = flag.String("table", "", "Also print the physical table name for this base table")
)

func main() {
	// Parse flags early to catch version flag
	flag.Parse()

	// Handle version flag
	if *versionFlag || *vFlag {
		info := entityscope.GetVersionInfo()
		fmt.Printf("EntityScope scopeprefix version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: scopeprefix [-table name] <scope-key>")
		os.Exit(2)
	}

	key := flag.Arg(0)
	prefix := naming.PrefixFor(key)
	fmt.Println(prefix)

	if *tableFlag != "" {
		fmt.Println(naming.Join(prefix, naming.StripPrefix(*tableFlag, prefix)))
	}
}
