package multiobjective

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"

	"github.com/windowshading/optimizer/apis/config/v1alpha1"
)

// LoadOptimizerArgs reads a YAML or JSON OptimizerArgs document and applies
// defaults. An empty path yields the defaults.
func LoadOptimizerArgs(path string) (*v1alpha1.OptimizerArgs, error) {
	args := &v1alpha1.OptimizerArgs{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, args); err != nil {
			return nil, fmt.Errorf("decoding config %s: %w", path, err)
		}
	}
	if args.APIVersion != "" && args.APIVersion != v1alpha1.GroupVersion {
		return nil, fmt.Errorf("unsupported apiVersion %q, want %q", args.APIVersion, v1alpha1.GroupVersion)
	}
	if args.Kind != "" && args.Kind != v1alpha1.OptimizerArgsKind {
		return nil, fmt.Errorf("unexpected kind %q, want %q", args.Kind, v1alpha1.OptimizerArgsKind)
	}
	v1alpha1.SetDefaults_OptimizerArgs(args)
	return args, nil
}

// WriteReport stores report at path, as JSON for a .json path and YAML otherwise.
func WriteReport(path string, report *v1alpha1.ParetoReport) error {
	var (
		data []byte
		err  error
	)
	if filepath.Ext(path) == ".json" {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = yaml.Marshal(report)
	}
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
