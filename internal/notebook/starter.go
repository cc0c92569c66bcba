package notebook

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

type starterDecoding struct {
	Regexp    string `yaml:"regexp"`
	DateGroup string `yaml:"date_group"`
	TimeGroup string `yaml:"time_group"`
	NameGroup string `yaml:"name_group"`
}

type starterDoc struct {
	Name           string          `yaml:"name"`
	Genre          string          `yaml:"genre"`
	Platform       string          `yaml:"platform"`
	UnderInfluence bool            `yaml:"under_influence"`
	Decoding       starterDecoding `yaml:"decoding"`
	DateFormat     string          `yaml:"date_format"`
	TimeFormat     string          `yaml:"time_format"`
}

const starterHeader = `# fosse notebook. Every directory below this one inherits these fields;
# a notebook in a subdirectory overrides them key by key.
`

// Starter renders a sample notebook for a directory called name. The
// decoding rule matches file names like "2024-03-15 21.30.00 Set one.mp4".
func Starter(name string) ([]byte, error) {
	doc := starterDoc{
		Name:     name,
		Genre:    "Unsorted",
		Platform: "Unknown",
		Decoding: starterDecoding{
			Regexp:    `^(?P<date>\d{4}-\d{2}-\d{2}) (?P<time>\d{2}\.\d{2}\.\d{2}) (?P<name>.+)\.\w+$`,
			DateGroup: "date",
			TimeGroup: "time",
			NameGroup: "name",
		},
		DateFormat: DefaultDateFormat,
		TimeFormat: "%H.%M.%S",
	}

	var buf bytes.Buffer
	buf.WriteString(starterHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
