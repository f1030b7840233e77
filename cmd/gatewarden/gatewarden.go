/*
Copyright 2015 All rights reserved.
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"time"

	"github.com/oleiade/reflections"
	"github.com/urfave/cli"

	"github.com/gatewarden/gatewarden/pkg/config"
	"github.com/gatewarden/gatewarden/pkg/constant"
	"github.com/gatewarden/gatewarden/pkg/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "[error] %s\n", err)
		os.Exit(1)
	}
}

// newApp creates the cli application, the flag set is derived from the
// configuration struct tags so the flags, the file keys and the environment
// variables never drift apart.
func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = constant.Prog
	app.Usage = constant.Prog + " " + constant.Description
	app.Version = server.GetVersion()
	app.Flags = getCommandLineOptions()

	app.Action = func(cx *cli.Context) error {
		cfg := config.NewDefaultConfig()

		if configFile := cx.String("config"); configFile != "" {
			if err := cfg.ReadConfigFile(configFile); err != nil {
				return cli.NewExitError(fmt.Sprintf("unable to read the configuration file: %s, error: %s", configFile, err), 1)
			}
		}

		if err := parseCLIOptions(cx, cfg); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}

		gate, err := server.NewGate(cfg, nil)
		if err != nil {
			return cli.NewExitError(err.Error(), 1)
		}

		if err := gate.Run(); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}

		signalChannel := make(chan os.Signal, 1)
		signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)
		<-signalChannel

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return gate.Shutdown(ctx)
	}

	return app
}

// getCommandLineOptions builds the flag set from the config struct, one flag
// per field carrying a usage tag.
func getCommandLineOptions() []cli.Flag {
	defaults := config.NewDefaultConfig()
	var flags []cli.Flag

	count := reflect.TypeOf(config.Config{}).NumField()
	for index := 0; index < count; index++ {
		field := reflect.TypeOf(config.Config{}).Field(index)
		usage, found := field.Tag.Lookup("usage")
		if !found {
			continue
		}
		optName := field.Tag.Get("json")

		switch t := field.Type; t.Kind() {
		case reflect.Bool:
			dv := reflect.ValueOf(defaults).Elem().FieldByName(field.Name).Bool()
			msg := fmt.Sprintf("%s (default: %t)", usage, dv)
			if dv {
				flags = append(flags, cli.BoolTFlag{
					Name:  optName,
					Usage: msg,
				})
			} else {
				flags = append(flags, cli.BoolFlag{
					Name:  optName,
					Usage: msg,
				})
			}
		case reflect.String:
			defaultValue := reflect.ValueOf(defaults).Elem().FieldByName(field.Name).String()
			flags = append(flags, cli.StringFlag{
				Name:  optName,
				Usage: usage,
				Value: defaultValue,
			})
		case reflect.Slice:
			if t.Elem().Kind() != reflect.String {
				// the scope tree is only expressible in the config file
				continue
			}
			flags = append(flags, cli.StringSliceFlag{
				Name:  optName,
				Usage: usage,
			})
		case reflect.Int64:
			if t != reflect.TypeOf(time.Duration(0)) {
				continue
			}
			defaultValue := time.Duration(reflect.ValueOf(defaults).Elem().FieldByName(field.Name).Int())
			flags = append(flags, cli.DurationFlag{
				Name:  optName,
				Usage: usage,
				Value: defaultValue,
			})
		}
	}

	return flags
}

// parseCLIOptions copies the flags the user actually set onto the config,
// overriding anything read from the file.
func parseCLIOptions(cx *cli.Context, cfg *config.Config) error {
	count := reflect.TypeOf(cfg).Elem().NumField()
	for index := 0; index < count; index++ {
		field := reflect.TypeOf(cfg).Elem().Field(index)
		if _, found := field.Tag.Lookup("usage"); !found {
			continue
		}
		optName := field.Tag.Get("json")
		if !cx.IsSet(optName) {
			continue
		}

		var err error
		switch t := field.Type; t.Kind() {
		case reflect.Bool:
			err = reflections.SetField(cfg, field.Name, cx.Bool(optName))
		case reflect.String:
			err = reflections.SetField(cfg, field.Name, cx.String(optName))
		case reflect.Slice:
			if t.Elem().Kind() != reflect.String {
				continue
			}
			err = reflections.SetField(cfg, field.Name, []string(cx.StringSlice(optName)))
		case reflect.Int64:
			if t != reflect.TypeOf(time.Duration(0)) {
				continue
			}
			err = reflections.SetField(cfg, field.Name, cx.Duration(optName))
		}
		if err != nil {
			return err
		}
	}

	return nil
}
