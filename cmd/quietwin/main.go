// Command quietwin captures and drives windows of other applications without
// leaving the user's focus, window or virtual desktop changed.
package main

import "os"

func main() {
	os.Exit(run(newApp(os.Stdout, os.Stderr), os.Args[1:]))
}
