package bubbletea

// RenderMessage exposes renderMessage for tests.
var RenderMessage = renderMessage
