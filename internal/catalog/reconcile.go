package catalog

// Reconcile merges persisted user state into the built-in defaults. Persisted
// flags (deleted, rating, favourite, folder, reference image) always win;
// persisted label and prompt text wins only when non-empty. Persisted styles
// that are not defaults are appended in their persisted order.
func Reconcile(defaults, persisted []Style) []Style {
	byID := make(map[string]Style, len(persisted))
	for _, p := range persisted {
		byID[p.ID] = p
	}

	merged := make([]Style, 0, len(defaults)+len(persisted))
	known := make(map[string]bool, len(defaults))
	for _, d := range defaults {
		known[d.ID] = true
		p, ok := byID[d.ID]
		if !ok {
			merged = append(merged, d)
			continue
		}
		d.Deleted = p.Deleted
		d.Rating = p.Rating
		d.Favorite = p.Favorite
		d.FolderID = p.FolderID
		d.ReferenceImage = p.ReferenceImage
		d.Label = firstNonEmpty(p.Label, d.Label)
		d.LabelVI = firstNonEmpty(p.LabelVI, d.LabelVI)
		d.Prompt = firstNonEmpty(p.Prompt, d.Prompt)
		d.PromptVI = firstNonEmpty(p.PromptVI, d.PromptVI)
		merged = append(merged, d)
	}

	for _, p := range persisted {
		if known[p.ID] {
			continue
		}
		p.Custom = true
		merged = append(merged, p)
	}
	return merged
}

// ReconcileFolders returns the default folders followed by persisted folders
// that are not defaults. Persisted names override default names.
func ReconcileFolders(defaults, persisted []Folder) []Folder {
	byID := make(map[string]Folder, len(persisted))
	for _, p := range persisted {
		byID[p.ID] = p
	}

	merged := make([]Folder, 0, len(defaults)+len(persisted))
	known := make(map[string]bool, len(defaults))
	for _, d := range defaults {
		known[d.ID] = true
		if p, ok := byID[d.ID]; ok {
			d.Name = firstNonEmpty(p.Name, d.Name)
			d.NameEN = firstNonEmpty(p.NameEN, d.NameEN)
		}
		merged = append(merged, d)
	}
	for _, p := range persisted {
		if !known[p.ID] {
			merged = append(merged, p)
		}
	}
	return merged
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
