package main

import (
	"os"

	"github.com/farcloser/primordium/format"
)

// printResult renders a single meta map through the requested formatter,
// mirroring the teacher CLI's outputResult.
func printResult(object string, meta map[string]any, formatName string) error {
	formatter, err := format.GetFormatter(formatName)
	if err != nil {
		return err //nolint:wrapcheck
	}

	data := &format.Data{
		Object: object,
		Meta:   meta,
	}

	return formatter.PrintAll([]*format.Data{data}, os.Stdout) //nolint:wrapcheck
}
