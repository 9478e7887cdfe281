package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/titanous/json5"
)

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// decodeInto unmarshals the file at path on top of out, only the keys present
// in the file are overwritten so zero values written by the user are kept.
func decodeInto[T any](path string, out *T) (bool, error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

func localPath(name string) string {
	prefixname, ext := splitExt(filepath.Base(name))
	return filepath.Join(
		filepath.Dir(name),
		fmt.Sprintf("%s.local.%s", prefixname, ext),
	)
}

// readLayered decodes <name>.<ext> and then <name>.local.<ext> on top of out.
func readLayered[T any](name string, out *T) error {
	foundDefault, err := decodeInto(name, out)
	if err != nil {
		return err
	}
	local := localPath(name)
	foundLocal, err := decodeInto(local, out)
	if err != nil {
		return err
	}
	if !foundDefault && !foundLocal {
		return fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	if foundLocal {
		slog.Debug("merging config with local overrides", "local", local)
	}
	return nil
}

// reads a configuration file, `name` should come with a file extension,
// it will automatically be lopped off to produce the other extensions.
// this function will merge the following files, where higher number is more prioritized.
// 1. <name>.<ext>
// 2. <name>.local.<ext>
//
// a key present in a later file always wins, even when its value is 0, false or "".
// if neither file exists the returned error wraps os.ErrNotExist.
func ReadConfig[T any](name string) (T, error) {
	var out T
	err := readLayered(name, &out)
	return out, err
}

// ReadRecursively is ReadConfig but it goes up the filesystem from the cwd
// until the root to find a configuration file matching the name.
func ReadRecursively[T any](name string) (T, error) {
	var defaultOut T

	current, err := os.Getwd()
	if err != nil {
		return defaultOut, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if err == nil {
			return config, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return defaultOut, err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return defaultOut, fmt.Errorf("%s: %w", name, os.ErrNotExist)
		}
		current = parent
	}
}

// ReadWithDefaults is ReadConfig with the files decoded on top of `defaults`,
// every key missing from both files keeps its default. A missing file is not
// an error, the defaults are returned as is.
func ReadWithDefaults[T any](name string, defaults T) (T, error) {
	out := defaults
	err := readLayered(name, &out)
	if errors.Is(err, os.ErrNotExist) {
		return defaults, nil
	}
	if err != nil {
		return defaults, err
	}
	return out, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names, they are what users write in their config files
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks the `validate` struct tags of a config.
func Validate(config any) error {
	err := validate.Struct(config)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var errlist []error
	for _, e := range fieldErrs {
		if e.Param() != "" {
			errlist = append(errlist, fmt.Errorf("%s: failed '%s=%s' (got %v)", e.Namespace(), e.Tag(), e.Param(), e.Value()))
			continue
		}
		errlist = append(errlist, fmt.Errorf("%s: failed '%s' (got %v)", e.Namespace(), e.Tag(), e.Value()))
	}
	return errors.Join(errlist...)
}
