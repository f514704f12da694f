/*
Package cli holds the helpers shared by the veil subcommands.

Output formatting covers the three --output modes of veil detect. Span lists
print one span per line as text, as a JSON array, or as CSV rows with the
columns entity_type, start, end, score and text:

	formatter := cli.NewFormatter(cli.FormatCSV)
	if err := formatter.FormatTo(os.Stdout, spans); err != nil {
		return err
	}

Highlight marks detected spans inside the input text. ColorEnabled decides
whether ANSI colour is used; it is on only for terminals and honours
NO_COLOR.

Exit codes come from ExitCode: configuration problems (ConfigError) exit
with 2, every other failure with 1.

SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM, which
veil run passes to the server. WaitForShutdown exposes the raw signal channel
including SIGHUP.
*/
package cli
