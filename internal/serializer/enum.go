package serializer

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	nonWord   = regexp.MustCompile(`[\W|^]+`)
	validName = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)
)

// EnumName converts a choice value into a GraphQL enum value name: runs of
// non-word characters become "_", letters are upper-cased and names that
// would still be invalid get an "A_" prefix.
func EnumName(value any) string {
	name := strings.ToUpper(nonWord.ReplaceAllString(fmt.Sprint(value), "_"))
	if !validName.MatchString(name) {
		name = "A_" + name
	}
	return name
}
