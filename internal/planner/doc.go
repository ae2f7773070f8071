// Package planner turns a normalized token sequence into a covering list of
// segment picks (C2) using greedy longest-phrase matching against a clip
// catalog, falling back to single-word lookup and finally a placeholder.
package planner
