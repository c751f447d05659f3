package publisher

import "inference-service/internal/detector"

// complianceItems is the closed set of PPE items a compliance summary
// reports presence/absence for, mirroring kafka_producer.py's
// _build_message compliance computation.
var complianceItems = []string{"helmet", "vest", "goggles"}

// ComplianceSummary is the per-result roll-up of which PPE items are
// present vs. missing, published alongside every detection result.
type ComplianceSummary struct {
	Violations     []string `json:"violations"`
	CompliantItems []string `json:"compliant_items"`
	HasViolations  bool     `json:"has_violations"`
	ViolationCount int      `json:"violation_count"`
	PersonCount    int      `json:"person_count"`
}

// ComputeComplianceSummary inspects a detector result's class names: any
// class prefixed "no_" is a violation, reported under violations with the
// "no_" prefix intact (e.g. "no_helmet"), matching kafka_producer.py's
// _build_message, which appends detection.class_name unchanged; any of
// {helmet, vest, goggles} present without its "no_" counterpart is a
// compliant item. PersonCount counts "person" class detections, for
// callers that want occupancy without walking the full detection list.
// Exported so internal/servicer can compute the same summary for the
// synchronous reply path (§4.4) without duplicating this logic.
func ComputeComplianceSummary(result detector.Result) ComplianceSummary {
	seen := make(map[string]struct{}, len(result.Detections))
	personCount := 0
	for _, d := range result.Detections {
		seen[d.ClassName] = struct{}{}
		if d.ClassName == "person" {
			personCount++
		}
	}

	var violations []string
	for name := range seen {
		const prefix = "no_"
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			violations = append(violations, name)
		}
	}

	var compliant []string
	for _, item := range complianceItems {
		if _, violated := seen["no_"+item]; violated {
			continue
		}
		if _, present := seen[item]; present {
			compliant = append(compliant, item)
		}
	}

	if violations == nil {
		violations = []string{}
	}
	if compliant == nil {
		compliant = []string{}
	}

	return ComplianceSummary{
		Violations:     violations,
		CompliantItems: compliant,
		HasViolations:  len(violations) > 0,
		ViolationCount: len(violations),
		PersonCount:    personCount,
	}
}
