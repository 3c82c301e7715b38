package config

import (
	"fmt"
	"strings"

	"github.com/carbocation/rilcoupling/family"
)

// FamilyFlags collects repeated --family id=path flags.
type FamilyFlags []family.Source

func (f *FamilyFlags) String() string {
	if f == nil {
		return ""
	}

	parts := make([]string, 0, len(*f))
	for _, s := range *f {
		parts = append(parts, s.ID+"="+s.Path)
	}
	return strings.Join(parts, ",")
}

func (f *FamilyFlags) Set(value string) error {
	parts := strings.SplitN(value, "=", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("expected id=path, got %q", value)
	}

	*f = append(*f, family.Source{ID: parts[0], Path: parts[1]})
	return nil
}
