package utils

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/gomail.v2"

	"github.com/avishkar-club/treasury_backend/config"
	"github.com/avishkar-club/treasury_backend/models"
)

// DecisionNotifier delivers workflow decision notifications to members: an
// in-app notification document plus a best-effort email. Failures are logged
// and never propagate into the workflow operation that triggered them.
type DecisionNotifier struct {
	DB *mongo.Client
}

func NewDecisionNotifier(db *mongo.Client) *DecisionNotifier {
	return &DecisionNotifier{DB: db}
}

// NotifyDecision records an in-app notification and emails the member.
func (n *DecisionNotifier) NotifyDecision(userID primitive.ObjectID, title, message string) {
	if err := SaveNotification(n.DB, userID, title, message, "workflow_decision", nil); err != nil {
		log.Printf("Failed to save notification for %s: %v", userID.Hex(), err)
	}

	var user models.User
	err := config.GetCollection(n.DB, "users").FindOne(context.Background(), bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		log.Printf("Failed to find user %s for notification email: %v", userID.Hex(), err)
		return
	}
	if err := SendEmail(user.Email, title, message); err != nil {
		log.Printf("Failed to send notification email to %s: %v", user.Email, err)
	}
}

// SaveNotification saves a notification to the database
func SaveNotification(db *mongo.Client, userID primitive.ObjectID, title, message, notifType string, data interface{}) error {
	collection := config.GetCollection(db, "notifications")

	notification := models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notifType,
		Data:      data,
		IsRead:    false,
		CreatedAt: time.Now(),
	}

	_, err := collection.InsertOne(context.Background(), notification)
	return err
}

// SendEmail sends a plain-text email through the configured SMTP relay
func SendEmail(to, subject, body string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	smtpPort := 2525
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			smtpPort = port
		}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)
	return d.DialAndSend(m)
}
