package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Gunvolt24/cnshell/pkg/configcheck"
	"github.com/Gunvolt24/cnshell/pkg/configman"
	"github.com/Gunvolt24/cnshell/pkg/shell"
	"github.com/spf13/pflag"
)

// CLI-приложение: показывает, из какого слоя берётся каждый ключ манифеста.
//
//	config-check --in keys.jsonl -- --log_level debug
//
// Аргументы после "--" разбираются как командная строка проверяемого сервиса.
func main() {
	fs := pflag.NewFlagSet("config-check", pflag.ExitOnError)
	inputPath := fs.String("in", "", "path to key manifest (.json or .jsonl). If empty, reads JSONL from stdin.")
	formatStr := fs.String("format", "auto", "input format: auto|json|jsonl")
	prefix := fs.String("prefix", shell.AppEnvPrefix, "env var prefix for keys without an explicit prefix")
	_ = fs.Parse(os.Args[1:])

	var appArgs []string
	if dash := fs.ArgsLenAtDash(); dash >= 0 {
		appArgs = fs.Args()[dash:]
	}

	resolver, err := configman.New(configman.WithArgs(appArgs))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config-check: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	checker := configcheck.NewChecker(configcheck.NewKeyValidator(), resolver, *prefix)
	format := configcheck.InputFormat(*formatStr)

	var res configcheck.Result
	if *inputPath == "" {
		res, err = checker.CheckReader(ctx, os.Stdin, format, os.Stdout)
	} else {
		res, err = checker.CheckFile(ctx, *inputPath, format, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config-check: %v (%s)\n", err, res.Summary())
		os.Exit(1)
	}
	if res.Failed > 0 {
		fmt.Fprintf(os.Stderr, "config-check failed (%s)\n", res.Summary())
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "config-check ok (%s)\n", res.Summary())
}
