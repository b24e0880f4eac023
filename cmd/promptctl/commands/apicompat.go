package commands

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"promptmart/docs"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var supportedMethods = map[string]struct{}{
	"get":     {},
	"put":     {},
	"post":    {},
	"delete":  {},
	"patch":   {},
	"head":    {},
	"options": {},
}

// apiSurface maps path -> method -> response codes.
type apiSurface map[string]map[string]map[string]struct{}

type compatReport struct {
	Compatible bool     `json:"compatible" yaml:"compatible"`
	Issues     []string `json:"issues" yaml:"issues"`
}

var errIncompatible = errors.New("backward compatibility check failed")

func newAPICompatCmd(out func(*cobra.Command) printer) *cobra.Command {
	var basePath, revisionPath string

	cmd := &cobra.Command{
		Use:   "api-compat",
		Short: "Check an API document for removed paths, operations or responses",
		Long: `Compare a base Swagger/OpenAPI document against a revision and report
anything a client could depend on that the revision dropped. Without
--revision the API document compiled into this binary is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(basePath) == "" {
				return fmt.Errorf("--base is required")
			}
			// #nosec G304: path comes from CLI flags in an operator tool
			baseRaw, err := os.ReadFile(basePath)
			if err != nil {
				return fmt.Errorf("load base spec: %w", err)
			}
			base, err := parseSurface(baseRaw)
			if err != nil {
				return fmt.Errorf("parse base spec: %w", err)
			}

			var revRaw []byte
			if revisionPath == "" {
				revRaw = []byte(docs.SwaggerInfo.ReadDoc())
			} else if revRaw, err = os.ReadFile(revisionPath); err != nil { // #nosec G304
				return fmt.Errorf("load revision spec: %w", err)
			}
			revision, err := parseSurface(revRaw)
			if err != nil {
				return fmt.Errorf("parse revision spec: %w", err)
			}

			issues := compareSurfaces(base, revision)
			report := compatReport{Compatible: len(issues) == 0, Issues: issues}
			if err := out(cmd).print(report); err != nil {
				return err
			}
			if !report.Compatible {
				return errIncompatible
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&basePath, "base", "", "Base API document (JSON or YAML)")
	cmd.Flags().StringVar(&revisionPath, "revision", "", "Revision API document (defaults to the built-in one)")
	return cmd
}

// parseSurface reads the paths section of a Swagger or OpenAPI document.
// YAML is a superset of JSON so both encodings load the same way.
func parseSurface(raw []byte) (apiSurface, error) {
	var doc struct {
		Paths map[string]map[string]yaml.Node `yaml:"paths"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Paths == nil {
		return nil, errors.New("missing top-level paths field")
	}

	surface := make(apiSurface, len(doc.Paths))
	for path, methods := range doc.Paths {
		ops := make(map[string]map[string]struct{})
		for method, node := range methods {
			m := strings.ToLower(strings.TrimSpace(method))
			if _, ok := supportedMethods[m]; !ok {
				continue
			}
			var op struct {
				Responses map[string]yaml.Node `yaml:"responses"`
			}
			if err := node.Decode(&op); err != nil {
				continue
			}
			codes := make(map[string]struct{}, len(op.Responses))
			for code := range op.Responses {
				if c := strings.ToLower(strings.TrimSpace(code)); c != "" {
					codes[c] = struct{}{}
				}
			}
			ops[m] = codes
		}
		if len(ops) > 0 {
			surface[path] = ops
		}
	}
	return surface, nil
}

func compareSurfaces(base, revision apiSurface) []string {
	issues := []string{}

	for path, baseOps := range base {
		revOps, ok := revision[path]
		if !ok {
			issues = append(issues, fmt.Sprintf("removed path: %s", path))
			continue
		}
		for method, baseCodes := range baseOps {
			revCodes, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s %s", strings.ToUpper(method), path))
				continue
			}
			for code := range baseCodes {
				if _, ok := revCodes[code]; !ok {
					issues = append(issues, fmt.Sprintf(
						"removed response code: %s %s -> %s",
						strings.ToUpper(method), path, strings.ToUpper(code),
					))
				}
			}
		}
	}

	sort.Strings(issues)
	return issues
}
