package firefly

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	ModelImage3         = "image3"
	ModelImage3Custom   = "image3_custom"
	ModelImage4Standard = "image4_standard"
	ModelImage4Ultra    = "image4_ultra"
)

const (
	ContentClassPhoto = "photo"
	ContentClassArt   = "art"
)

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// The two model families accept disjoint output dimensions. The first entry
// of each set is the square default for the family.
var (
	image3Sizes = []Size{
		{1024, 1024},
		{1152, 896},
		{896, 1152},
		{1344, 768},
		{768, 1344},
	}
	image4Sizes = []Size{
		{2048, 2048},
		{2304, 1792},
		{1792, 2304},
		{2688, 1536},
		{1536, 2688},
	}
)

var contentClasses = []string{ContentClassPhoto, ContentClassArt}

// GenerationConfig is the fully resolved parameter set for one invocation.
type GenerationConfig struct {
	Model         string
	Size          Size
	ContentClass  string
	NumVariations int
}

// Models returns the known model identifiers.
func Models() []string {
	return []string{ModelImage3, ModelImage3Custom, ModelImage4Standard, ModelImage4Ultra}
}

// FamilySizes returns the size enumeration legal for the given model, or an
// error wrapping ErrConfig when the model is unknown.
func FamilySizes(model string) ([]Size, error) {
	switch model {
	case ModelImage3, ModelImage3Custom:
		return image3Sizes, nil
	case ModelImage4Standard, ModelImage4Ultra:
		return image4Sizes, nil
	default:
		return nil, newFault(ErrConfig, "unknown model %q, expected one of: %s",
			model, strings.Join(Models(), ", "))
	}
}

// ParseSize parses a "WIDTHxHEIGHT" pair.
func ParseSize(choice string) (Size, error) {
	parts := strings.SplitN(strings.TrimSpace(choice), "x", 2)
	if len(parts) != 2 {
		return Size{}, newFault(ErrConfig, "invalid size format %q, use WIDTHxHEIGHT like 1024x1024", choice)
	}
	width, errW := strconv.Atoi(parts[0])
	height, errH := strconv.Atoi(parts[1])
	if errW != nil || errH != nil {
		return Size{}, newFault(ErrConfig, "invalid size format %q, use WIDTHxHEIGHT like 1024x1024", choice)
	}
	return Size{Width: width, Height: height}, nil
}

// Resolve validates model, size choice and content class against the
// provider's accepted enumeration and returns the resolved configuration.
// It is pure: no network use, so invalid parameters fail before any call.
func Resolve(model, sizeChoice, contentClass string) (GenerationConfig, error) {
	sizes, err := FamilySizes(model)
	if err != nil {
		return GenerationConfig{}, err
	}

	size, err := ParseSize(sizeChoice)
	if err != nil {
		return GenerationConfig{}, err
	}
	if !sizeAllowed(size, sizes) {
		return GenerationConfig{}, newFault(ErrConfig, "size %s is not supported by model %s, allowed sizes: %s",
			size, model, legalSizes(sizes))
	}

	if !classAllowed(contentClass) {
		return GenerationConfig{}, newFault(ErrConfig, "unknown content class %q, expected one of: %s",
			contentClass, strings.Join(contentClasses, ", "))
	}

	return GenerationConfig{
		Model:         model,
		Size:          size,
		ContentClass:  contentClass,
		NumVariations: 1,
	}, nil
}

func sizeAllowed(size Size, sizes []Size) bool {
	for _, s := range sizes {
		if s == size {
			return true
		}
	}
	return false
}

func classAllowed(class string) bool {
	for _, c := range contentClasses {
		if c == class {
			return true
		}
	}
	return false
}

func legalSizes(sizes []Size) string {
	names := make([]string, 0, len(sizes))
	for _, s := range sizes {
		names = append(names, s.String())
	}
	return strings.Join(names, ", ")
}

// defaultSizeFor returns the square default of the model family. Used when a
// user overrides the model and the admin default size belongs to the other
// family.
func defaultSizeFor(model string) (Size, error) {
	sizes, err := FamilySizes(model)
	if err != nil {
		return Size{}, err
	}
	return sizes[0], nil
}
