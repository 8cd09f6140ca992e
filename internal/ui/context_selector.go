package ui

import (
	"errors"
	"sort"
	"strings"

	"github.com/vietdv277/cirrus/internal/config"
)

func contextItems(contexts map[string]*config.Context, current string) []pickerItem {
	names := make([]string, 0, len(contexts))
	for name := range contexts {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]pickerItem, len(names))
	for i, name := range names {
		ctx := contexts[name]

		cred, credLabel := ctx.Profile, "Profile:"
		if ctx.Project != "" {
			cred, credLabel = ctx.Project, "Project:"
		}
		if cred == "" {
			cred = "-"
		}
		region := ctx.Region
		if region == "" {
			region = "-"
		}
		provider := strings.ToUpper(ctx.Provider)
		provStyle := ProviderStyle(ctx.Provider)

		items[i] = pickerItem{
			key:     name,
			current: name == current,
			cells: []cell{
				{name, NameStyle},
				{provider, provStyle},
				{cred, MutedStyle},
				{region, RegionStyle},
			},
			details: []detail{
				{"Context:", name, NameStyle},
				{"Provider:", provider, provStyle},
				{credLabel, cred, MutedStyle},
				{"Region:", region, RegionStyle},
			},
		}
	}
	return items
}

// SelectContext runs the interactive context selector and returns the chosen name.
// The current context is pre-highlighted in the list.
func SelectContext(contexts map[string]*config.Context, current string) (string, error) {
	if len(contexts) == 0 {
		return "", errors.New("no contexts available")
	}
	return runPicker(newPickerModel("Context Details", "contexts", contextItems(contexts, current)))
}
