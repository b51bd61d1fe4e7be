package cmd

import (
	"github.com/spf13/pflag"
)

func mustGetString(f *pflag.FlagSet, name string) string {
	v, err := f.GetString(name)
	if err != nil {
		panic(err)
	}

	return v
}

func mustGetInt(f *pflag.FlagSet, name string) int {
	v, err := f.GetInt(name)
	if err != nil {
		panic(err)
	}

	return v
}

func mustGetBool(f *pflag.FlagSet, name string) bool {
	v, err := f.GetBool(name)
	if err != nil {
		panic(err)
	}

	return v
}
