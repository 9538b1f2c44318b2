// Package enrich fills in creator bios the scraping actor left empty by
// reading the public profile page.
//
// A cheap static HTTP fetch runs first; pages that turn out to be script shells are
// re-rendered in a headless browser. The description is then read from the
// rendered bio element or the page's description meta tags.
package enrich
