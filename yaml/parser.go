package yaml

import (
	"fmt"
	"os"

	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"gopkg.in/yaml.v2"
)

type Parser interface {
	Parse(yamlFile []byte) error
	GetConfig() interface{}
}

type ParserJobV1 struct {
	config JobYamlV1
}

func (p *ParserJobV1) Parse(yamlFile []byte) error {
	var job JobYamlV1
	if err := yaml.UnmarshalStrict(yamlFile, &job); err != nil {
		return err
	}
	p.config = job
	return nil
}

func (p *ParserJobV1) GetConfig() interface{} {
	return p.config
}

type Version struct {
	Version string `yaml:"version"`
}

func getYAMLFileVersion(yamlFile []byte) (string, error) {
	var version Version
	err := yaml.Unmarshal(yamlFile, &version)
	if err != nil {
		return "", err
	}
	return version.Version, nil
}

// ParseJob reads a job description. A missing version is read as 1.0.
func ParseJob(yamlFile []byte) (*JobYamlV1, error) {
	version, err := getYAMLFileVersion(yamlFile)
	if err != nil {
		return nil, fmt.Errorf("failed unable to parse YAML file, %w", err)
	}
	switch version {
	case "", "1.0":
		parser := &ParserJobV1{}
		if err = parser.Parse(yamlFile); err != nil {
			return nil, fmt.Errorf("failed unable to parse YAML file, %w", err)
		}
		job := parser.GetConfig().(JobYamlV1)
		if err := job.checkRequired(); err != nil {
			return nil, err
		}
		return &job, nil
	default:
		return nil, fmt.Errorf("not support yaml version: %s", version)
	}
}

// HandlerYaml loads a job file into a job request and a resolver for the asset files it references.
func HandlerYaml(yamlFilePath string) (*models.JobRequest, *FileResolver, error) {
	yamlFile, err := os.ReadFile(yamlFilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed unable to read file, %w", err)
	}
	job, err := ParseJob(yamlFile)
	if err != nil {
		return nil, nil, err
	}
	req, err := job.ToJobRequest()
	if err != nil {
		return nil, nil, err
	}
	resolver, err := job.Resolver(yamlFilePath)
	if err != nil {
		return nil, nil, err
	}
	return req, resolver, nil
}
