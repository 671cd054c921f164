// Package youtube implements the playlist-triggered media downloader.
//
// The client watches a named playlist of the authenticated account and
// hands every new video to an external downloader command (yt-dlp by
// default). A plain-text archive file of downloaded video ids makes runs
// idempotent, and successfully downloaded items can optionally be removed
// from the playlist so it acts as a download queue.
//
// Authentication reuses the Google OAuth config file of the calendar
// tools; the YouTube scopes just need to be present in it.
package youtube
