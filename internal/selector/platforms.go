package selector

import "strings"

// Platform describes a hosted applicant-tracking system with a
// recognizable host pattern and its known default markup. Selectors are
// ordered: primary first, then fallbacks for older or white-labeled
// templates.
type Platform struct {
	Name      string   `mapstructure:"name"`
	Hosts     []string `mapstructure:"hosts"`
	Selectors []string `mapstructure:"selectors"`
}

// DefaultPlatforms returns the built-in ATS table. Host matching is a
// case-insensitive substring test against the career page URL host.
func DefaultPlatforms() []Platform {
	return []Platform{
		{
			Name:  "lever",
			Hosts: []string{"lever.co"},
			Selectors: []string{
				".posting",
				".postings-group .posting",
				`[data-qa="posting"]`,
			},
		},
		{
			Name:  "greenhouse",
			Hosts: []string{"greenhouse.io"},
			Selectors: []string{
				".opening",
				"section.level-0 .opening",
				"#main .opening",
			},
		},
		{
			Name:  "workable",
			Hosts: []string{"workable.com"},
			Selectors: []string{
				`li[data-ui="job"]`,
				".jobs-list li",
				".job",
			},
		},
		{
			Name:  "ashby",
			Hosts: []string{"ashbyhq.com"},
			Selectors: []string{
				`[class*="jobPosting"]`,
				`a[class*="posting"]`,
			},
		},
		{
			Name:  "smartrecruiters",
			Hosts: []string{"smartrecruiters.com"},
			Selectors: []string{
				".opening-job",
				".js-openings li",
			},
		},
		{
			Name:  "bamboohr",
			Hosts: []string{"bamboohr.com"},
			Selectors: []string{
				".BambooHR-ATS-Jobs-Item",
				"ul#jobs li",
			},
		},
		{
			Name:  "recruitee",
			Hosts: []string{"recruitee.com"},
			Selectors: []string{
				".jobs .job",
				`[class*="offer"]`,
			},
		},
		{
			Name:  "breezy",
			Hosts: []string{"breezy.hr"},
			Selectors: []string{
				"li.position",
				".positions li",
			},
		},
	}
}

// matchPlatform finds the first platform whose host fragment occurs in
// host, or nil.
func matchPlatform(platforms []Platform, host string) *Platform {
	host = strings.ToLower(host)
	for i := range platforms {
		for _, fragment := range platforms[i].Hosts {
			if fragment == "" {
				continue
			}
			if strings.Contains(host, strings.ToLower(fragment)) {
				return &platforms[i]
			}
		}
	}
	return nil
}
