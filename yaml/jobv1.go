package yaml

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/lagrangedao/go-compute-to-data/constants"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"gopkg.in/errgo.v2/fmt/errors"
	"k8s.io/apimachinery/pkg/api/resource"
)

const gigabyte = 1e9

type JobYamlV1 struct {
	Version          string                 `yaml:"version"`
	Environment      string                 `yaml:"environment"`
	Mode             string                 `yaml:"mode"`
	Resources        Resources              `yaml:"resources"`
	Algorithm        Asset                  `yaml:"algorithm"`
	Datasets         []Asset                `yaml:"datasets"`
	CustomParameters map[string]interface{} `yaml:"customParameters"`
}

type Resources struct {
	Cpu         float64  `yaml:"cpu"`
	Ram         Quantity `yaml:"ram"`
	Disk        Quantity `yaml:"disk"`
	JobDuration int64    `yaml:"jobDuration"`
}

type Asset struct {
	Did       string                 `yaml:"did"`
	ServiceId string                 `yaml:"serviceId"`
	File      string                 `yaml:"asset"`
	Userdata  map[string]interface{} `yaml:"userdata"`
}

// Quantity is a size in GB, written either as a plain number or as a Kubernetes quantity.
type Quantity float64

func (q *Quantity) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*q = 0
	case int:
		*q = Quantity(v)
	case float64:
		*q = Quantity(v)
	case string:
		gb, err := ParseGigabytes(v)
		if err != nil {
			return err
		}
		*q = Quantity(gb)
	default:
		return fmt.Errorf("invalid size %v", raw)
	}
	return nil
}

// ParseGigabytes reads "4", "4Gi" or "4G" as 4. Binary suffixes count 2^30 bytes per unit.
func ParseGigabytes(s string) (float64, error) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	bytes := q.AsApproximateFloat64()
	if q.Format == resource.BinarySI {
		return bytes / (1 << 30), nil
	}
	return bytes / gigabyte, nil
}

func (jy *JobYamlV1) checkRequired() error {
	if jy.Environment == "" {
		return errors.New("environment must be defined")
	}
	if jy.Algorithm.Did == "" {
		return errors.New("algorithm did must be defined")
	}
	if len(jy.Datasets) == 0 {
		return errors.New("at least one dataset must be defined")
	}
	for i, ds := range jy.Datasets {
		if ds.Did == "" {
			return errors.Newf("dataset %d has no did", i)
		}
	}
	if jy.Resources.JobDuration <= 0 {
		return errors.New("resources.jobDuration must be positive")
	}
	switch jy.Mode {
	case "", constants.ResourceModeFree, constants.ResourceModePaid:
	default:
		return errors.Newf("unknown mode %q", jy.Mode)
	}
	return nil
}

// ToJobRequest places the resources in the bucket named by mode; without a mode they go
// to the paid bucket and the selector falls back as usual.
func (jy *JobYamlV1) ToJobRequest() (*models.JobRequest, error) {
	if err := jy.checkRequired(); err != nil {
		return nil, err
	}
	values := &models.ResourceValues{
		CPU:         jy.Resources.Cpu,
		RAM:         float64(jy.Resources.Ram),
		Disk:        float64(jy.Resources.Disk),
		JobDuration: jy.Resources.JobDuration,
	}
	bucket := &models.EnvResourceValues{}
	if jy.Mode == constants.ResourceModeFree {
		bucket.Free = values
	} else {
		bucket.Paid = values
	}

	req := &models.JobRequest{
		Algorithm:        jy.Algorithm.ref(),
		ComputeEnv:       jy.Environment,
		Resources:        map[string]*models.EnvResourceValues{jy.Environment: bucket},
		CustomParameters: stringKeys(jy.CustomParameters),
	}
	for _, ds := range jy.Datasets {
		req.Datasets = append(req.Datasets, ds.ref())
	}
	return req, nil
}

func (a Asset) ref() models.AssetRef {
	return models.AssetRef{Did: a.Did, ServiceID: a.ServiceId, Userdata: stringKeys(a.Userdata)}
}

// stringKeys converts the nested maps yaml.v2 decodes into JSON encodable ones.
func stringKeys(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	}
	return v
}

// Resolver loads the asset files named by the job, relative to the job file.
func (jy *JobYamlV1) Resolver(yamlFilePath string) (*FileResolver, error) {
	dir := filepath.Dir(yamlFilePath)
	resolver := NewFileResolver()
	for _, a := range append([]Asset{jy.Algorithm}, jy.Datasets...) {
		if a.File == "" {
			continue
		}
		path := a.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if err := resolver.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return resolver, nil
}
