package handlers

import (
	"html/template"
	"log"
	"net/http"
	"os"
)

type DocHandler struct{}

func NewDocHandler() *DocHandler {
	return &DocHandler{}
}

func (h *DocHandler) ServePrivacyPolicy(w http.ResponseWriter, r *http.Request) {
	const privacyHtml = `
	<!DOCTYPE html>
	<html lang="en">
	<head>
		<meta charset="UTF-8">
		<meta name="viewport" content="width=device-width, initial-scale=1.0">
		<title>Privacy Policy - FastTrack</title>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; background-color: #f9f9f9; }
			.container { background-color: #fff; padding: 40px; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
			h1 { color: #2c3e50; border-bottom: 2px solid #eee; padding-bottom: 10px; }
			h2 { color: #34495e; margin-top: 30px; }
			.date { color: #7f8c8d; font-style: italic; margin-bottom: 20px; }
		</style>
	</head>
	<body>
		<div class="container">
			<h1>Privacy Policy</h1>
			<div class="date">Last updated: August 30, 2026</div>

			<p>FastTrack ("we", "our", or "us") helps you track intermittent fasting. This policy explains what we collect and why.</p>

			<h2>1. Information We Collect</h2>
			<p>When you sign in we receive your name, email address, and profile photo from your identity provider. While you use the app we store the fasting sessions, weight entries, and social activity you record.</p>

			<h2>2. Health Data</h2>
			<p>Your fasting and weight history exists only to show you your own progress and the features you opt into (friends, circles, challenges). We never sell it or share it with advertisers.</p>

			<h2>3. Push Notifications</h2>
			<p>If you enable notifications we store a device token to deliver reminders. You can revoke this in the app's settings at any time.</p>

			<h2>4. Data Deletion</h2>
			<p>Deleting your account removes your profile and history from our servers. Email support if anything remains.</p>

			<h2>5. Contact</h2>
			<p>Questions? Email support@fasttrack.app.</p>
		</div>
	</body>
	</html>
	`

	tmpl, err := template.New("privacy").Parse(privacyHtml)
	if err != nil {
		http.Error(w, "Could not load privacy policy", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	tmpl.Execute(w, nil)
}

func (h *DocHandler) ServeTermsOfServices(w http.ResponseWriter, r *http.Request) {
	const termsHtml = `
	<!DOCTYPE html>
	<html lang="en">
	<head>
		<meta charset="UTF-8">
		<meta name="viewport" content="width=device-width, initial-scale=1.0">
		<title>Terms of Service - FastTrack</title>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; line-height: 1.6; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; background-color: #f9f9f9; }
			.container { background-color: #fff; padding: 40px; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
			h1 { color: #2c3e50; border-bottom: 2px solid #eee; padding-bottom: 10px; }
			h2 { color: #34495e; margin-top: 30px; }
			.date { color: #7f8c8d; font-style: italic; margin-bottom: 20px; }
		</style>
	</head>
	<body>
		<div class="container">
			<h1>Terms of Service</h1>
			<div class="date">Last updated: August 30, 2026</div>

			<h2>1. Not Medical Advice</h2>
			<p>FastTrack is a tracking tool, not a medical service. Consult a doctor before starting any fasting regimen, especially if you have a medical condition.</p>

			<h2>2. Your Account</h2>
			<p>You are responsible for activity on your account. Keep your sign-in credentials private.</p>

			<h2>3. FastTrack Plus</h2>
			<p>Paid subscriptions renew automatically until cancelled through the store or payment provider. Features may change between billing periods.</p>

			<h2>4. Acceptable Use</h2>
			<p>Don't harass other users in circles, spoof fasting data in challenges, or attempt to disrupt the service.</p>

			<h2>5. Termination</h2>
			<p>We may suspend accounts that violate these terms. You may delete your account at any time.</p>
		</div>
	</body>
	</html>
	`

	tmpl, err := template.New("terms").Parse(termsHtml)
	if err != nil {
		http.Error(w, "Could not load terms of service", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	tmpl.Execute(w, nil)
}

func (h *DocHandler) GetAppMinVersion(w http.ResponseWriter, r *http.Request) {
	appAndroidMinVersion := os.Getenv("ANDROID_MIN_VERSION")
	appIOSMinVersion := os.Getenv("IOS_MIN_VERSION")
	if appAndroidMinVersion == "" || appIOSMinVersion == "" {
		log.Println("Min version env vars not set")
		respondWithError(w, http.StatusInternalServerError, "Version info unavailable")
		return
	}

	type MinVersion struct {
		MinAndroidVersion string `json:"min_android_version_code"`
		MinIOSVersion     string `json:"min_ios_version_code"`
		UpdateMessage     string `json:"update_message"`
	}

	respondWithJSON(w, http.StatusOK, &MinVersion{
		MinAndroidVersion: appAndroidMinVersion,
		MinIOSVersion:     appIOSMinVersion,
		UpdateMessage:     "An important update is available. Please update to continue using the app.",
	})
}
