package format

import (
	"bytes"

	"gopkg.in/ini.v1"

	"github.com/roach88/multiio/internal/value"
)

// iniCodec maps keys of the unnamed default section to top-level scalars
// and every named section to an Object of scalars. Section and key order
// are kept. Values are typed with ClassifyScalar, so INI shares CSV's
// lossy boundary for strings that look like numbers or booleans.
type iniCodec struct{}

func (iniCodec) Kind() Kind           { return INI }
func (iniCodec) Extensions() []string { return []string{"ini", "cfg"} }

func iniLoadOptions() ini.LoadOptions {
	return ini.LoadOptions{
		// "#" and ";" only start a comment after whitespace, so URLs and
		// fragments survive as values.
		SpaceBeforeInlineComment: true,
	}
}

func (iniCodec) Decode(data []byte) (value.Value, error) {
	f, err := ini.LoadSources(iniLoadOptions(), data)
	if err != nil {
		return nil, &DecodeError{Kind: INI, Err: err}
	}

	obj := value.NewObject()
	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection {
			for _, key := range sec.Keys() {
				obj.Set(key.Name(), ClassifyScalar(key.Value()))
			}
			continue
		}
		section := value.NewObject()
		for _, key := range sec.Keys() {
			section.Set(key.Name(), ClassifyScalar(key.Value()))
		}
		obj.Set(sec.Name(), section)
	}
	return obj, nil
}

func (iniCodec) Encode(v value.Value) ([]byte, error) {
	obj, ok := v.(*value.Object)
	if !ok {
		return nil, unrepresentable(INI, "", "top level must be an object, got %s", value.Kind(v))
	}

	f := ini.Empty(iniLoadOptions())
	for k, elem := range obj.All() {
		path := joinPath("", k)
		if k == ini.DefaultSection {
			return nil, unrepresentable(INI, path, "%q is reserved for the default section", k)
		}
		if section, ok := elem.(*value.Object); ok {
			sec, err := f.NewSection(k)
			if err != nil {
				return nil, &EncodeError{Kind: INI, Path: path, Err: err}
			}
			for sk, sv := range section.All() {
				if err := setINIKey(sec, sk, sv, joinPath(path, sk)); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := setINIKey(f.Section(""), k, elem, path); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, &EncodeError{Kind: INI, Err: err}
	}
	return buf.Bytes(), nil
}

func setINIKey(sec *ini.Section, key string, v value.Value, path string) error {
	text, ok := ScalarText(v)
	if !ok {
		return unrepresentable(INI, path, "value must be a finite scalar, got %s", value.Kind(v))
	}
	if _, err := sec.NewKey(key, text); err != nil {
		return &EncodeError{Kind: INI, Path: path, Err: err}
	}
	return nil
}
