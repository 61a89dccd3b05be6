// Daybook CLI entry point
//
// Daybook keeps tasks, projects, progress logs, and transactions in a
// local database and synchronizes them with a coordination backend.
package main

import "github.com/jbctechsolutions/daybook/internal/presentation/cli/commands"

func main() {
	commands.Execute()
}
