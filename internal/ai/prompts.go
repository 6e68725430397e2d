package ai

import (
	"fmt"
	"strings"
)

func sqlPrompt(database string, q Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You write ClickHouse SQL for analytics on a confidential decentralized exchange.\n\n")
	fmt.Fprintf(&b, "The only table you may read:\n%s\n", schemaFor(database))
	b.WriteString("Rules:\n")
	b.WriteString("- Reply with one SELECT query and nothing else: no prose, no comments.\n")
	fmt.Fprintf(&b, "- Read from %s.transactions FINAL.\n", database)
	b.WriteString("- Filter time windows on timestamp.\n")
	b.WriteString("- Never add up amounts of different tokens; group by from_token instead.\n")
	b.WriteString("- For \"top\", \"largest\" or \"most active\" questions use ORDER BY ... DESC LIMIT.\n")
	b.WriteString("- Read only. INSERT, UPDATE, DELETE, DROP, ALTER, CREATE and TRUNCATE are rejected.\n")
	if q.Wallet != "" {
		fmt.Fprintf(&b, "- Only this wallet's activity counts: include WHERE wallet_address = '%s'.\n", q.Wallet)
	}
	fmt.Fprintf(&b, "\nQuestion:\n%s\n", q.Text)
	return b.String()
}

func summaryPrompt(q Question, query, rowsJSON string) string {
	var b strings.Builder
	b.WriteString("You report on activity of a confidential DEX. Wallet balances are encrypted; ")
	b.WriteString("only the public transaction log was queried.\n\n")
	if q.Wallet != "" {
		fmt.Fprintf(&b, "The question is about wallet %s only.\n\n", q.Wallet)
	}
	fmt.Fprintf(&b, "Question:\n%s\n\nSQL:\n%s\n\nRows (JSON, may be empty):\n%s\n\n", q.Text, query, rowsJSON)
	b.WriteString("Answer in a few short bullet points. Quote the key numbers with their token symbol, ")
	b.WriteString("rounded sensibly. If there are no rows, say no matching activity was found. ")
	b.WriteString("Do not repeat the JSON.\n")
	return b.String()
}
