package verifier

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

type driverParams struct {
	ModuleName    string
	ParserPath    string
	ReferencePath string
	DocumentPath  string
}

// String literals are emitted as JSON strings, which Python parses as the
// same str value.
var driverTmpl = template.Must(template.New("driver").Funcs(template.FuncMap{
	"py": func(s string) (string, error) {
		b, err := json.Marshal(s)
		return string(b), err
	},
}).Parse(`import contextlib
import importlib.util
import sys

sys.dont_write_bytecode = True

# Only the pass marker goes to stdout. Candidate output and every diagnostic
# go to stderr.
try:
    import pandas as pd

    with contextlib.redirect_stdout(sys.stderr):
        spec = importlib.util.spec_from_file_location({{py .ModuleName}}, {{py .ParserPath}})
        module = importlib.util.module_from_spec(spec)
        sys.modules[spec.name] = module
        spec.loader.exec_module(module)

        expected_df = pd.read_csv({{py .ReferencePath}})
        actual_df = module.parse({{py .DocumentPath}})

    matched = expected_df.equals(actual_df)
except Exception as e:
    print(f"Execution Error: {type(e).__name__}: {e}", file=sys.stderr)
    sys.exit(1)

if matched:
    print("success")
else:
    print("Error: DataFrame does not match the expected output.", file=sys.stderr)
    print("Expected:\n", expected_df, file=sys.stderr)
    print("Expected dtypes:\n", expected_df.dtypes, file=sys.stderr)
    print("Actual:\n", actual_df, file=sys.stderr)
    if isinstance(actual_df, pd.DataFrame):
        print("Actual dtypes:\n", actual_df.dtypes, file=sys.stderr)
    sys.exit(1)
`))

func renderDriver(p driverParams) (string, error) {
	var sb strings.Builder
	if err := driverTmpl.Execute(&sb, p); err != nil {
		return "", fmt.Errorf("render test driver: %w", err)
	}
	return sb.String(), nil
}
