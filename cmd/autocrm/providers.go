package main

// Notifier blank imports. Each import registers an alert destination.

import (
	_ "github.com/Strob0t/AutoCRM/internal/adapter/discord"
	_ "github.com/Strob0t/AutoCRM/internal/adapter/slack"
)
