package formats

// mergeDocuments layers a child document over its (already merged) parent.
// Fields the child sets win; fields the child leaves nil inherit. Section
// structs merge field by field so a child can override a single threshold
// without restating the whole section. The ICAO override map merges key by
// key down to individual rule parameters. Neither input is mutated.
func mergeDocuments(parent, child Document) Document {
	out := Document{
		FormatID:     child.FormatID,
		InheritsFrom: child.InheritsFrom,
	}

	out.DisplayName = pickString(parent.DisplayName, child.DisplayName)
	out.Version = pickString(parent.Version, child.Version)
	out.Country = pickString(parent.Country, child.Country)
	out.Authority = pickString(parent.Authority, child.Authority)
	out.ValidationStrictness = pickString(parent.ValidationStrictness, child.ValidationStrictness)
	out.AutoFixEnabled = pickBool(parent.AutoFixEnabled, child.AutoFixEnabled)

	if child.RegulationReferences != nil {
		out.RegulationReferences = append([]string(nil), child.RegulationReferences...)
	} else {
		out.RegulationReferences = append([]string(nil), parent.RegulationReferences...)
	}

	out.Dimensions = mergeDimensions(parent.Dimensions, child.Dimensions)
	out.FaceRequirements = mergeFaceRequirements(parent.FaceRequirements, child.FaceRequirements)
	out.Background = mergeBackground(parent.Background, child.Background)
	out.QualityThresholds = mergeQuality(parent.QualityThresholds, child.QualityThresholds)
	out.DetectionCriteria = mergeDetection(parent.DetectionCriteria, child.DetectionCriteria)
	out.ICAORules = mergeOverrides(parent.ICAORules, child.ICAORules)
	return out
}

func mergeDimensions(parent, child *DimensionsDoc) *DimensionsDoc {
	if parent == nil && child == nil {
		return nil
	}
	if parent == nil {
		cp := *child
		return &cp
	}
	out := *parent
	if child != nil {
		out.Width = pickInt(out.Width, child.Width)
		out.Height = pickInt(out.Height, child.Height)
		out.Unit = pickString(out.Unit, child.Unit)
		out.AspectRatio = pickFloat(out.AspectRatio, child.AspectRatio)
		out.Tolerance = pickFloat(out.Tolerance, child.Tolerance)
		// A child restating its geometry invalidates an inherited explicit
		// aspect ratio so the new width/height pair defines it instead.
		if child.AspectRatio == nil && (child.Width != nil || child.Height != nil) && parent.AspectRatio != nil {
			out.AspectRatio = nil
		}
	}
	return &out
}

func mergeFaceRequirements(parent, child *FaceRequirementsDoc) *FaceRequirementsDoc {
	if parent == nil && child == nil {
		return nil
	}
	if parent == nil {
		cp := *child
		return &cp
	}
	out := *parent
	if child != nil {
		if child.HeightRatio != nil {
			out.HeightRatio = child.HeightRatio
		}
		if child.EyeHeightRatio != nil {
			out.EyeHeightRatio = child.EyeHeightRatio
		}
		out.CenteringTolerance = pickFloat(out.CenteringTolerance, child.CenteringTolerance)
		out.MaxRotation = pickFloat(out.MaxRotation, child.MaxRotation)
	}
	return &out
}

func mergeBackground(parent, child *BackgroundDoc) *BackgroundDoc {
	if parent == nil && child == nil {
		return nil
	}
	if parent == nil {
		cp := *child
		return &cp
	}
	out := *parent
	if child != nil {
		out.Color = pickString(out.Color, child.Color)
		if child.RGB != nil {
			out.RGB = child.RGB
		}
		out.Tolerance = pickFloat(out.Tolerance, child.Tolerance)
		out.UniformityThreshold = pickFloat(out.UniformityThreshold, child.UniformityThreshold)
	}
	return &out
}

func mergeQuality(parent, child *QualityDoc) *QualityDoc {
	if parent == nil && child == nil {
		return nil
	}
	if parent == nil {
		cp := *child
		return &cp
	}
	out := *parent
	if child != nil {
		out.MinBrightness = pickFloat(out.MinBrightness, child.MinBrightness)
		out.MaxBrightness = pickFloat(out.MaxBrightness, child.MaxBrightness)
		out.MinSharpness = pickFloat(out.MinSharpness, child.MinSharpness)
		out.MaxBlurVariance = pickFloat(out.MaxBlurVariance, child.MaxBlurVariance)
	}
	return &out
}

func mergeDetection(parent, child *DetectionDoc) *DetectionDoc {
	if parent == nil && child == nil {
		return nil
	}
	if parent == nil {
		cp := *child
		return &cp
	}
	out := *parent
	if child != nil {
		out.MinResolution = pickInt(out.MinResolution, child.MinResolution)
		out.TargetAspectRatio = pickFloat(out.TargetAspectRatio, child.TargetAspectRatio)
		out.Tolerance = pickFloat(out.Tolerance, child.Tolerance)
	}
	return &out
}

func mergeOverrides(parent, child map[string]map[string]map[string]any) map[string]map[string]map[string]any {
	if len(parent) == 0 && len(child) == 0 {
		return nil
	}
	out := make(map[string]map[string]map[string]any, len(parent)+len(child))
	for category, rules := range parent {
		out[category] = cloneRuleParams(rules)
	}
	for category, rules := range child {
		existing, ok := out[category]
		if !ok {
			out[category] = cloneRuleParams(rules)
			continue
		}
		for name, params := range rules {
			base, ok := existing[name]
			if !ok {
				existing[name] = cloneParams(params)
				continue
			}
			for k, v := range params {
				base[k] = v
			}
		}
	}
	return out
}

func cloneRuleParams(in map[string]map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any, len(in))
	for name, params := range in {
		out[name] = cloneParams(params)
	}
	return out
}

func cloneParams(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func pickString(parent, child *string) *string {
	if child != nil {
		return child
	}
	return parent
}

func pickInt(parent, child *int) *int {
	if child != nil {
		return child
	}
	return parent
}

func pickFloat(parent, child *float64) *float64 {
	if child != nil {
		return child
	}
	return parent
}

func pickBool(parent, child *bool) *bool {
	if child != nil {
		return child
	}
	return parent
}
