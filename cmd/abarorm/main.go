/*
Abarorm synchronizes the tables of the models declared in a configuration file
and inspects the database behind it.

Usage:

	abarorm [flags] COMMAND

The commands are:

	sync
		Create the missing tables and columns of every declared model.
	ddl
		Print the CREATE TABLE statement of every declared model without
		touching the database.
	columns TABLE
		List the live columns of TABLE.
	ping
		Check that the database can be reached.

The flags are:

	-c, --config PATH
		Use the given YAML file instead of './abarorm.yml'. A missing default
		file is not an error; connection settings then come from the
		ABARORM_* environment variables.
	-n, --dry-run
		Log the statements instead of running them.
	-m, --model NAME
		Declare one more model named NAME.
	-f, --fields SPEC
		Fields of the --model model, e.g. "title:char:100,author:fk:Author".
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/abarorm/abarorm"
	"github.com/abarorm/abarorm/config"
)

const (
	exitSuccess = iota
	exitError
	exitPanic
	exitInterrupt
	exitUsage
)

const defaultConfig = "abarorm.yml"

var exitCode int

var (
	flagConfig = pflag.StringP("config", "c", defaultConfig, "Path to configuration file")
	flagDryRun = pflag.BoolP("dry-run", "n", false, "Log statements without running them")
	flagModel  = pflag.StringP("model", "m", "", "Name of an extra model to declare")
	flagFields = pflag.StringP("fields", "f", "", "Fields of the extra model, name:type[:size] separated by commas")
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)
	defer func() {
		signal.Stop(signalChan)
		cancel()
	}()
	go func() {
		select {
		case <-signalChan:
			cancel()
		case <-ctx.Done():
		}

		<-signalChan
		os.Exit(exitInterrupt)
	}()

	defer func() {
		if panicErr := recover(); panicErr != nil {
			fmt.Fprintf(os.Stderr, "fatal panic: %v\n", panicErr)
			exitCode = exitPanic
		}
		os.Exit(exitCode)
	}()

	pflag.Parse()
	args := pflag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "ERROR: missing command; one of sync, ddl, columns, ping")
		exitCode = exitUsage
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		exitCode = exitError
		return
	}

	if err := run(ctx, cfg, args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		exitCode = exitError
		if errors.Is(err, errUsage) {
			exitCode = exitUsage
		}
	}
}

var errUsage = errors.New("usage")

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(*flagConfig)
	if errors.Is(err, fs.ErrNotExist) && !pflag.CommandLine.Changed("config") {
		cfg = config.Config{}
		err = cfg.ApplyEnv(os.LookupEnv)
	}
	if err != nil {
		return config.Config{}, err
	}

	if *flagModel != "" {
		fields, err := config.ParseFields(*flagFields)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Models = append(cfg.Models, config.Model{Name: *flagModel, Fields: fields})
	} else if *flagFields != "" {
		return config.Config{}, fmt.Errorf("%w: --fields needs --model", errUsage)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	command := strings.ToLower(args[0])
	switch command {
	case "sync", "ddl", "ping":
		if len(args) != 1 {
			return fmt.Errorf("%w: %s takes no arguments", errUsage, command)
		}
	case "columns":
		if len(args) != 2 {
			return fmt.Errorf("%w: columns takes a table name", errUsage)
		}
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	// ddl only needs the foreign keys resolved, which registration does
	db, err := cfg.Open(*flagDryRun || command == "ddl")
	if err != nil {
		return err
	}

	switch command {
	case "ping":
		if err := db.Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
	case "sync":
		models, err := cfg.Register(ctx, db)
		if err != nil {
			return err
		}
		for _, model := range models {
			fmt.Fprintf(out, "%s -> %s\n", model.Schema().Name, model.Schema().Table)
		}
	case "ddl":
		models, err := cfg.Register(ctx, db)
		if err != nil {
			return err
		}
		for _, model := range models {
			fmt.Fprintf(out, "%s;\n", db.Migrator().CreateTableSQL(model.Schema()))
		}
	case "columns":
		return printColumns(ctx, db, args[1], out)
	}
	return nil
}

func printColumns(ctx context.Context, db *abarorm.DB, table string, out io.Writer) error {
	columnTypes, err := db.Migrator().ColumnTypes(ctx, table)
	if err != nil {
		return err
	}
	if len(columnTypes) == 0 {
		return fmt.Errorf("table %s not found", table)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tTYPE\tNULL\tKEY\tDEFAULT")
	for _, column := range columnTypes {
		nullable, _ := column.Nullable()
		primaryKey, _ := column.PrimaryKey()
		defaultValue, ok := column.DefaultValue()
		if !ok {
			defaultValue = "-"
		}

		key := ""
		if primaryKey {
			key = "PRI"
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", column.Name(), column.DatabaseTypeName(), nullable, key, defaultValue)
	}
	return w.Flush()
}
