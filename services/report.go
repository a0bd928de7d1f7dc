package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"inventory-sync/models"
	"inventory-sync/utils"
)

const sampleIDLimit = 5

type ReportService struct {
	logger *utils.Logger
}

func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

// GroupUnclassified aggregates dropped listings by raw category, raw
// manufacturer and reason, largest group first.
func (s *ReportService) GroupUnclassified(dropped []models.Unclassified) []models.UnclassifiedGroup {
	type key struct {
		category, manufacturer string
		reason                 models.DropReason
	}
	index := make(map[key]int)
	var groups []models.UnclassifiedGroup

	for _, d := range dropped {
		k := key{d.Listing.RawCategory, d.Listing.RawManufacturer, d.Reason}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, models.UnclassifiedGroup{
				RawCategory:     k.category,
				RawManufacturer: k.manufacturer,
				Reason:          k.reason,
			})
		}
		groups[i].Count++
		if len(groups[i].SampleIDs) < sampleIDLimit {
			groups[i].SampleIDs = append(groups[i].SampleIDs, d.Listing.ID)
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})
	s.logger.Debug("[report] %d unclassified listings in %d groups", len(dropped), len(groups))
	return groups
}

// PrintAllocation writes the per-region allocation summary.
func (s *ReportService) PrintAllocation(w io.Writer, r *AllocationReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  INVENTORY ALLOCATION\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	if len(r.Regions) == 0 {
		fmt.Fprintf(w, "  No regions configured\n")
	}
	for _, reg := range r.Regions {
		fmt.Fprintf(w, "\033[1;33m  Region %s (quota %d)\033[0m\n", reg.Region, reg.TotalQuota)
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %-16s %8s %10s %10s\n", "category", "before", "reclaimed", "allocated")
		for _, c := range models.Categories {
			fmt.Fprintf(w, "  %-16s %8d %10d %10d\n", c, reg.Before[c], reg.Reclaimed[c], reg.Allocated[c])
		}
		if reg.Unclassifiable > 0 {
			fmt.Fprintf(w, "  Released unclassifiable : \033[1;31m%d\033[0m\n", reg.Unclassifiable)
		}
		fmt.Fprintln(w)
		for _, id := range reg.AccountOrder {
			bar := strings.Repeat("█", reg.PerAccount[id]/5)
			fmt.Fprintf(w, "  %-20s %s (%d)\n", truncate(id, 20), bar, reg.PerAccount[id])
		}
		fmt.Fprintln(w)
	}

	if len(r.PoolLeft) > 0 {
		fmt.Fprintf(w, "\033[1;33m  Left unassigned\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		for _, c := range models.Categories {
			fmt.Fprintf(w, "  %-16s %8d\n", c, r.PoolLeft[c])
		}
		fmt.Fprintln(w)
	}
	if n := len(r.Unclassified); n > 0 {
		fmt.Fprintf(w, "  Unclassified in pool : \033[1;31m%d\033[0m (run `report unclassified`)\n", n)
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

// PrintUnclassified writes grouped drops, one row per group.
func (s *ReportService) PrintUnclassified(w io.Writer, groups []models.UnclassifiedGroup) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  NEEDS TAXONOMY\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	if len(groups) == 0 {
		fmt.Fprintf(w, "  Every listing classifies\n")
	}
	for _, g := range groups {
		fmt.Fprintf(w, "\033[1;33m  %s / %s\033[0m  %s\n", orDash(g.RawCategory), orDash(g.RawManufacturer), g.Reason)
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  Listings : \033[1m%d\033[0m\n", g.Count)
		fmt.Fprintf(w, "  Samples  : %s\n\n", strings.Join(g.SampleIDs, ", "))
	}

	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
