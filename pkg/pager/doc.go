// Package pager walks filtered result sets page by page.
//
// Pages are addressed by a numeric offset cursor. Cursor 0 asks for the first
// page; a returned NextCursor of 0 means there is nothing more. Any other
// cursor is passed back to the server as received.
//
// Pager.FetchPage is stateless. List accumulates pages for a view: Reset with
// a new filter drops everything and starts again from cursor 0, and a page
// that arrives for a filter that has since been replaced is discarded. Walk
// visits every page and stops with ErrCursorStalled if the server hands back a
// cursor that does not move forward.
package pager
