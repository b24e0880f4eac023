// Command promptctl is the operator CLI for the Promptmart ledger: schema
// migrations, counter reconciliation, moderation, role management and seeding.
package main

import "promptmart/cmd/promptctl/commands"

func main() {
	commands.Execute()
}
